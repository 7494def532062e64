// Package api defines the data model of the Responses API.
//
// Polymorphic values are Go interfaces with one concrete struct per wire
// discriminator: [Item], [ContentPart], [Annotation], [Tool], [TextFormat],
// [ComputerAction] and [StreamEvent]. Each union is decoded through a
// [codec.Registry]; a discriminator this package does not know decodes into
// the union's Unknown variant instead of failing. Encoding always writes the
// discriminator of the concrete type.
//
// Enumerations are string types backed by [enum.Set]. Closed enumerations
// decode unknown tokens to the empty value; expandable ones keep them.
//
// Request and response types ([CreateResponsesRequest], [Response], the list
// pages) use pointers for optional scalars, so an unset field is absent from
// the encoded JSON rather than null. [Ptr] helps fill them in literals.
//
// The package performs no I/O. Request validation, ID generation and the
// response and item status machines live here so that clients and servers
// share them.
package api
