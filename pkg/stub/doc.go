// Package stub is a deterministic ResponseCreator that needs no model.
//
// The reply is derived from the request alone:
//
//   - if the last input item is a function_call_output, its output is
//     returned as assistant text;
//   - otherwise, if the request offers function tools that tool_choice
//     allows, the first allowed function is called with the last user text
//     as {"input": ...};
//   - otherwise the last user text is echoed back.
//
// Streaming requests receive the full lifecycle event sequence. Background
// requests are stored as queued and completed by a goroutine, so they can be
// cancelled in between.
package stub
