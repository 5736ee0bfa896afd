package schema

// document mirrors one declaration file.
//
//	module = "app"
//
//	[[struct]]
//	name = "Point"
//	[[struct.field]]
//	name = "x"
//	type = "int"
//
//	[[interface]]
//	name = "Shape"
//	extends = ["Named"]
//	[[interface.method]]
//	name = "area"
//	result = "double"
//
//	[[class]]
//	name = "Circle"
//	base = "Figure"
//	implements = ["Shape"]
//	[[class.field]]
//	name = "r"
//	type = "double"
//	init = 1.0
//	[[class.method]]
//	name = "area"
//	result = "double"
//	[[class.ctor]]
//	params = ["double"]
//	[[class.dtor]]
type document struct {
	Module     string          `toml:"module"`
	Structs    []structDecl    `toml:"struct"`
	Interfaces []interfaceDecl `toml:"interface"`
	Classes    []classDecl     `toml:"class"`
}

type structDecl struct {
	Name   string       `toml:"name"`
	Fields []memberDecl `toml:"field"`
}

type memberDecl struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
	// Init is an integer, float, bool or the string "null".
	Init  any    `toml:"init"`
	Union string `toml:"union"`
}

type methodDecl struct {
	Name     string   `toml:"name"`
	Params   []string `toml:"params"`
	Result   string   `toml:"result"`
	Abstract bool     `toml:"abstract"`
	Final    bool     `toml:"final"`
	Override bool     `toml:"override"`
}

type interfaceDecl struct {
	Name    string       `toml:"name"`
	Extends []string     `toml:"extends"`
	Methods []methodDecl `toml:"method"`
}

type classDecl struct {
	Name       string   `toml:"name"`
	Module     string   `toml:"module"`
	Base       string   `toml:"base"`
	Implements []string `toml:"implements"`
	NestedIn   string   `toml:"nested_in"`
	Abstract   bool     `toml:"abstract"`
	Template   bool     `toml:"template"`
	Extern     bool     `toml:"extern"`

	Fields  []memberDecl `toml:"field"`
	Methods []methodDecl `toml:"method"`
	Ctors   []ctorDecl   `toml:"ctor"`
	Dtors   []dtorDecl   `toml:"dtor"`
}

type ctorDecl struct {
	Params []string `toml:"params"`
}

type dtorDecl struct {
	Name string `toml:"name"`
}
