// Command respkit works with OpenAI Responses API payloads.
//
// Usage:
//
//	# Run the stub Responses API server
//	respkit serve --addr :8080
//
//	# Decode a polymorphic payload and print the variant it becomes
//	echo '{"type":"function_call","call_id":"c1","name":"f","arguments":"{}"}' | respkit decode item
//
//	# Create a response through the client, streaming the text
//	respkit send --model gpt-4o --stream "hello there"
//
//	# Read or write an Event Hubs checkpoint
//	respkit checkpoint set ns.servicebus.windows.net hub '$default' 0 --sequence 42
//	respkit checkpoint get ns.servicebus.windows.net hub '$default' 0
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
