package knowledge

// Methods that complete synchronously whatever object they are called on.
var defaultSyncMethods = []string{
	"addListener",
	// DOM
	"getAttribute",
	"setAttribute",
	"toggleAttribute",
	"setProperty",
	"removeProperty",
	"removeAttribute",
	"appendChild",
	"removeChild",
	"addEventListener",
	"removeEventListener",
	"closest",
	"getElementById",
	"querySelector",
	"querySelectorAll",
	"getMostRecentWindow",
	"createElement",
}

var defaultSyncFunctions = []string{
	"log",
	"setTimeout",
	"clearTimeout",
	"encodeURI",
	"exportFunction",
	"String",
}

var defaultNamedStaticMembers = []StaticMember{
	{"console", "error"},
	{"console", "log"},
	{"JSON", "stringify"},
	{"Object", "defineProperty"},
	{"Object", "create"},
	{"Object", "assign"},
	{"Math", "random"},
	{"Math", "floor"},
	{"Math", "round"},
	{"Math", "min"},
	{"performance", "now"},
}

// Methods that are sync when the receiver is an inline array literal.
var arrayMethods = []string{
	"join",
	"forEach",
}

// Listener registration never awaits its callback, so an async callback
// there is always a dropped promise.
var asyncCallbackForbidden = []string{
	"addListener",
	"addEventListener",
}
