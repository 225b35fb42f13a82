// Package protocol implements the esimd websocket protocol.
//
// Every frame is a JSON text message with the same envelope:
//
//	{"id": "<uuid>", "type": "<type>", ...}
//
// The client picks the ID; replies and, for watches, every progress event
// carry it back. Requests are slots, download and watch. Replies are slots,
// task, progress and error.
//
//	-> {"id":"a1","type":"download","download":{"slot":0,"smdp":"rsp.example.com","matching_id":"X"}}
//	<- {"id":"a1","type":"task","task_id":3}
//	-> {"id":"b2","type":"watch","task_id":3}
//	<- {"id":"b2","type":"progress","task_id":3,"progress":{"stage":"downloading","percent":40}}
//	<- {"id":"b2","type":"progress","task_id":3,"progress":{"stage":"done","percent":100,"done":true}}
//
// A watch ends after the event with done set. Download failures travel
// inside that event as a structured error, not as an error reply; error
// replies are for requests the daemon could not serve.
package protocol
