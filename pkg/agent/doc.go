// Package agent maps declarative configurations onto executable
// instruction trees. A Factory holds one Builder per agent type; Create
// validates a Config, asks the builder for a root instruction, and
// returns an Agent whose Process call delegates to the root's Execute
// contract. Agents never reach into combinator internals.
package agent
