// Package server is esimd's websocket endpoint.
//
// A Server wraps an lpa.Engine, normally a tasks.Manager driving lpac, and
// serves it on protocol.Path. Clients ask for slots, start downloads and
// watch tasks; see package protocol for the messages.
//
//	srv, err := server.New(&server.Config{Port: 7420}, manager)
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx) // returns once ctx is done and connections closed
//
// TLS is used when a certificate and key are configured. Downloads keep
// running when the client that started them disconnects, so a client can
// reconnect and watch the same task again.
package server
