// Package agui maps forensic session events onto the AG-UI protocol.
//
// AG-UI is an event-based protocol for connecting agent backends to
// user-facing applications. A [Mapper] converts each [event.Event] emitted
// by a session into exactly one AG-UI event, so any AG-UI client can follow
// an audit as it runs:
//
//	mapper := agui.NewMapper(threadID, dashboard.StateOf)
//	ch, cancel := sess.Subscribe()
//	defer cancel()
//
//	for ev := range mapper.MapStream(ch) {
//	    writeSSE(w, flusher, ev)
//	}
//
// State snapshots pass through the Mapper's projection function so the
// wire format can differ from the session's Go types.
//
// The Mapper is safe for concurrent use; it holds no per-run state.
package agui
