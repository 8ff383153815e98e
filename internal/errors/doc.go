// Package errors provides coded, actionable error values for space.
//
// Every error the runtime raises on its own behalf carries a short code
// (e.g. "E001") that maps to a registered template:
//   - a category (usage, runtime, scheduler, host, config)
//   - a one-line message
//   - a longer explanation
//   - a suggestion for how to fix it
//
// Usage errors are contract violations such as calling Provide outside of
// any ownership scope. They are raised by panic at the call site and are
// never routed to error handlers registered with CatchError.
//
// # Usage
//
//	err := errors.New("E001").
//	    WithOp("Provide").
//	    Wrap(signal.ErrNoOwner)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E001: Provide called without an owner
//	//
//	//   op: Provide
//	//
//	//   Context values are stored on the currently executing node. ...
//	//
//	//   Hint: Call Provide inside Root, an effect, or a memo.
package errors
