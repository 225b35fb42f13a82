// Package remote implements lpa.Engine against an esimd daemon.
//
// The wizard and the CLI do not care whether downloads run on this machine
// or on the host the eUICC reader is plugged into: they get an lpa.Engine
// either way. Dial returns one that forwards every call over the websocket
// protocol of package protocol.
//
//	client, err := remote.Dial(ctx, "ws://lab-pi.local:7420/v1/ws", remote.Options{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// Errors reported by the daemon come back as *protocol.RemoteError.
package remote
