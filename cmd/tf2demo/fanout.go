package main

import (
	tf2demo "github.com/gethexdemo/tf2demo"
	"github.com/gethexdemo/tf2demo/message"
	"github.com/gethexdemo/tf2demo/message/gameevent"
	"github.com/gethexdemo/tf2demo/message/stringtable"
	"github.com/gethexdemo/tf2demo/parser"
)

// multiCapability drives any number of parser.Capability implementations
// over the same parse, so the CLI can run the bundled analysers side by
// side instead of requiring one parse per analyser.
type multiCapability []parser.Capability

func (m multiCapability) HandlesMessage(t message.Type) bool {
	for _, c := range m {
		if c.HandlesMessage(t) {
			return true
		}
	}
	return false
}

func (m multiCapability) HandleHeader(h tf2demo.Header) {
	for _, c := range m {
		c.HandleHeader(h)
	}
}

func (m multiCapability) HandleStringEntry(tableName string, index int, entry stringtable.Entry) {
	for _, c := range m {
		c.HandleStringEntry(tableName, index, entry)
	}
}

func (m multiCapability) HandleMessage(msg message.Message, tick int32, state *parser.ParserState) {
	for _, c := range m {
		if c.HandlesMessage(msg.Type) {
			c.HandleMessage(msg, tick, state)
		}
	}
}

func (m multiCapability) HandleGameEvent(ev *gameevent.Event, tick int32, state *parser.ParserState) {
	for _, c := range m {
		if c.HandlesMessage(message.TypeGameEvent) {
			c.HandleGameEvent(ev, tick, state)
		}
	}
}

func (m multiCapability) HandlePacketMeta(tick int32, state *parser.ParserState) {
	for _, c := range m {
		c.HandlePacketMeta(tick, state)
	}
}

var _ parser.Capability = multiCapability(nil)
