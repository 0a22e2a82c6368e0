/*
Package link implements the host side of the serial link protocol: a
background receive loop that decodes frames from a transport and routes
them to per-device handlers, plus request operations with and without
acknowledgment.

# Requests

SendAsync writes a DATA frame with sequence id 0; the peer does not
acknowledge it. SendSync allocates a sequence id in 1..255, writes the
frame and waits for an ACK frame carrying the same id. The frame is
resent with the same id after each acknowledgment window until the
request budget runs out:

	ok, err := engine.SendSync(ctx, 4, link.Bytes2(1, 200))
	if err != nil {
	    // engine closed, context cancelled or transport failure
	}
	if !ok {
	    // the device did not acknowledge within the request timeout
	}

A NACK does not end the wait; the request keeps retrying until it is
acknowledged or times out. Several SendSync calls may run concurrently,
each waiting on its own sequence id.

# Received Frames

DATA frames are delivered to the handlers registered for their device
id, in registration order. DATA_LIST frames are expanded into one DATA
message per record. ACK frames complete the matching pending request and
are then delivered to handlers like any other frame. Handlers run on the
receive loop and must not block; a panicking handler is logged and the
loop keeps running.
*/
package link
