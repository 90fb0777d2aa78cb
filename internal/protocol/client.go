package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
)

// Sends one request to the daemon and returns its successful response.
//
// A [CmdError] response is returned as an error wrapping [ErrRemote].
// Canceling ctx closes the connection, which the daemon observes as a
// disconnect and uses to abort the request.
func Call(ctx context.Context, socket string, cmd Command, payload any) (*Envelope, json.RawMessage, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socket)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	data, err := Encode(cmd, payload)
	if err != nil {
		return nil, nil, err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}

	env, raw, err := Decode(line)
	if err != nil {
		return nil, nil, err
	}
	if env.Command == CmdError {
		res, err := DecodePayload[ErrorResult](raw)
		if err != nil {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %s", ErrRemote, res.Message)
	}
	return env, raw, nil
}
