package cmd

// Reply is what a callback hands back. It is one of NoReply, Text, Blocks or Raw.
type Reply interface {
	isReply()
}

// NoReply sends nothing.
type NoReply struct{}

// Text is a plain content reply.
type Text string

// Blocks is one or more rich-content blocks sent in a single reply.
type Blocks []Block

// Raw is an adapter-specific payload passed through verbatim.
type Raw struct {
	Payload any
}

func (NoReply) isReply() {}
func (Text) isReply()    {}
func (Blocks) isReply()  {}
func (Raw) isReply()     {}

// Field is a name/value pair inside a block.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Block is a rich-content block, rendered as an embed on Discord.
type Block struct {
	Title       string
	Description string
	URL         string
	Color       int
	Fields      []Field
	Footer      string
}

// Empty reports whether r produces no reply.
func Empty(r Reply) bool {
	switch v := r.(type) {
	case nil, NoReply, *NoReply:
		return true
	case Text:
		return v == ""
	case Blocks:
		return len(v) == 0
	case Raw:
		return v.Payload == nil
	}
	return false
}
