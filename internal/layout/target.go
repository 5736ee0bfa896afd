package layout

// Target describes the ABI target triple and its pointer properties.
type Target struct {
	Triple   string // e.g. "x86_64-linux-gnu"
	PtrSize  int    // bytes
	PtrAlign int    // bytes
}

func X86_64LinuxGNU() Target {
	return Target{
		Triple:   "x86_64-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
	}
}

// TargetFor returns the target for a triple with the given pointer size.
// An empty triple yields the default x86_64 target.
func TargetFor(triple string, ptrSize int) Target {
	t := X86_64LinuxGNU()
	if triple != "" {
		t.Triple = triple
	}
	if ptrSize > 0 {
		t.PtrSize = ptrSize
		t.PtrAlign = ptrSize
	}
	return t
}
