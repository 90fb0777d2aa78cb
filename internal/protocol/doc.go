// Package protocol defines the messages exchanged between the cruxpkgs CLI
// and daemon.
//
// Every message is a single line of JSON: an [Envelope] naming the command
// and carrying a command-specific payload. A connection carries one request
// and one response. Responses use [CmdOK] with the command's result type or
// [CmdError] with an [ErrorResult].
//
// Example usage:
//
//	env, payload, err := protocol.Call(ctx, socket, protocol.CmdRealize, &protocol.RealizeRequest{
//	    Attr: "hello",
//	})
//	if err != nil {
//	    return err
//	}
//	res, err := protocol.DecodePayload[protocol.RealizeResult](payload)
package protocol
