/*

Package tf2demo is a decoder for Team Fortress 2 demo recordings (*.dem),
the Source engine's binary capture of a game session.

tf2demo turns the raw byte blob into a structured, caller-driven event
stream: a bit-granular reader (bitstream), demo framing, an embedded
net-message dispatcher (message), a string-table replication engine
(message/stringtable), a packet-entity delta decoder
(message/sendtable, message/packetentities), and a game-event schema
binder (message/gameevent) feed a single mutable ParserState (parser),
which fans out to a caller-supplied Analyser (parser/analyser).

The package is intended for single-threaded, synchronous use: one
invocation owns one ParserState and one bit cursor.

Usage

	f, _ := os.ReadFile("match.dem")
	d := tf2demo.NewDemo(f)
	p := parser.New(d, analyser.NewGameStateAnalyser())
	header, state, err := p.Parse()

See parser/analyser for the bundled Analyser implementations
(MessageTypeAnalyser, Analyser, PlayerSummaryAnalyser, GameStateAnalyser).

*/
package tf2demo
