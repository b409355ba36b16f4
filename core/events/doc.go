// Package events defines the typed lifecycle events a live session emits.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - connection.*
//   - transcript.*
//   - playback.*
//   - turn.*
//
// connection events
//
//   - StateChanged (connection.state_changed): the session moved between
//     states; carries both state names.
//   - ConnectionOpened (connection.opened): the transport is open and the
//     setup frame was sent.
//   - HandshakeReady (connection.handshake_ready): the server acknowledged
//     setup; audio may be submitted from now on.
//   - ResumptionUpdated (connection.resumption_updated): the server issued or
//     revoked a resumption handle.
//   - GoAway (connection.go_away): the server will close the connection soon.
//   - Closed (connection.closed): the connection closed, locally or remotely.
//   - Error (connection.error): the connection could not be opened or failed.
//
// transcript events
//
//   - TranscriptUpdated (transcript.updated): point-in-time snapshot of the
//     whole transcript, most recent utterance first.
//
// playback events
//
//   - AudioChunkReceived (playback.audio_chunk): remote audio for playback.
//   - GenerationInterrupted (playback.interrupted): remote speech was cut off;
//     buffered playback is stale.
//
// turn events
//
//   - TurnCompleted (turn.completed): the remote side finished its turn.
package events
