package analysis

// builtinFunctions are callables provided by the dialect runtime; calls to
// them are never signature-checked.
var builtinFunctions = map[string]bool{
	// Starlark built-ins
	"all": true, "any": true, "bool": true, "bytes": true, "dict": true,
	"dir": true, "enumerate": true, "fail": true, "float": true,
	"getattr": true, "hasattr": true, "hash": true, "int": true, "len": true,
	"list": true, "max": true, "min": true, "print": true, "range": true,
	"repr": true, "reversed": true, "set": true, "sorted": true, "str": true,
	"tuple": true, "type": true, "zip": true,
	// Kurtosis stdlib
	"import_module": true, "read_file": true, "struct": true,
	"Directory": true, "ExecRecipe": true, "GetHttpRequestRecipe": true,
	"ImageBuildSpec": true, "NixBuildSpec": true, "PortSpec": true,
	"PostHttpRequestRecipe": true, "ReadyCondition": true,
	"ServiceConfig": true, "StoreSpec": true, "Toleration": true, "User": true,
}

// builtinModules are ambient module objects; qualified calls on them are
// never checked.
var builtinModules = map[string]bool{
	"plan": true, "json": true, "time": true,
	"kurtosistest": true, "expect": true,
}

// importPrimitive is the dialect builtin that loads another file as a module.
const importPrimitive = "import_module"

// Naming conventions.
const (
	privacyMarker = "_"
	testMarker    = "test_"
)
