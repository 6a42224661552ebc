package ir

import "fmt"

// Op identifies what a Node does when evaluated.
type Op int

const (
	OpUnknown   Op = iota // placeholder for code that failed to compile
	OpValue               // literal; result is Node.Value
	OpCall                // call of Node.Function (or of input 0 when Function is nil)
	OpInput               // input placeholder of a nested scope
	OpOutput              // output placeholder of a nested scope
	OpFunction            // function definition; Nested is the body
	OpIf                  // conditional; Nested holds the cases
	OpCase                // one branch of an if; input 0 is the condition
	OpFor                 // for loop; input 0 is the iterable
	OpWhile               // while loop
	OpWhileCond           // loop condition inside a while body
	OpReturn              // return from the enclosing function
	OpBreak               // leave the enclosing loop
	OpContinue            // start the next iteration
	OpDiscard             // next iteration, dropping this iteration's element
	OpExitPoint           // exit marker; input 0 signals, rest are captured outputs
	OpState               // persistent state declaration
	OpCopy                // copy of input 0
	OpExtract             // element "index" of a construct's result list
	OpList                // list literal built from inputs
	OpMap                 // map literal built from alternating key/value inputs
)

var opNames = map[Op]string{
	OpUnknown:   "unknown",
	OpValue:     "value",
	OpCall:      "call",
	OpInput:     "input",
	OpOutput:    "output",
	OpFunction:  "function",
	OpIf:        "if",
	OpCase:      "case",
	OpFor:       "for",
	OpWhile:     "while",
	OpWhileCond: "while_cond",
	OpReturn:    "return",
	OpBreak:     "break",
	OpContinue:  "continue",
	OpDiscard:   "discard",
	OpExitPoint: "exit_point",
	OpState:     "state",
	OpCopy:      "copy",
	OpExtract:   "extract",
	OpList:      "list",
	OpMap:       "map",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", op)
}

// IsLoop reports whether op is a loop construct.
func (op Op) IsLoop() bool {
	return op == OpFor || op == OpWhile
}

// IsConstruct reports whether op owns a nested scope that runs in place
// (as opposed to a function body, which runs when called).
func (op Op) IsConstruct() bool {
	return op == OpIf || op == OpFor || op == OpWhile
}

// Property keys used across the compiler, the exit pass and the interpreter.
const (
	PropStaticError      = "static_error"
	PropLine             = "line"
	PropCol              = "col"
	PropType             = "type"
	PropReturns          = "returns"
	PropIndex            = "index"
	PropIterator         = "iterator"
	PropSynthetic        = "synthetic"
	PropHighestExitLevel = "highestExitLevel"
	PropHidden           = "hidden"
	PropVariadic         = "variadic"
)

// ReturnName is the output name a function body uses for its result.
const ReturnName = "#return"
