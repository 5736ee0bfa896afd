// Package llvm lowers class and interface declarations into LLVM IR: the
// class struct layout, dispatch tables, interface tables and info records,
// instance images and the runtime type descriptors, plus the instruction
// sequences for instantiation, casts and virtual calls.
//
// Each class moves through the phases Resolved, Declared, ConstInitialized
// and Defined. Requesting a phase forces the earlier ones, for the class and
// for everything its layout depends on.
package llvm
