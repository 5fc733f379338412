package ast

import "encoding/json"

// Every node encodes with a "kind" discriminator so consumers of the JSON
// form (debug dumps, tooling) can tell union variants apart.

func (p *Port) MarshalJSON() ([]byte, error) {
	type alias Port
	return json.Marshal(struct {
		Kind string `json:"kind"`
		*alias
	}{"port", (*alias)(p)})
}

func (n *Net) MarshalJSON() ([]byte, error) {
	type alias Net
	return json.Marshal(struct {
		Kind string `json:"kind"`
		*alias
	}{"net", (*alias)(n)})
}

func (c *Combinatorial) MarshalJSON() ([]byte, error) {
	type alias Combinatorial
	return json.Marshal(struct {
		Kind string `json:"kind"`
		*alias
	}{"combinatorial", (*alias)(c)})
}

func (c *ConditionalBlock) MarshalJSON() ([]byte, error) {
	type alias ConditionalBlock
	return json.Marshal(struct {
		Kind string `json:"kind"`
		*alias
	}{"conditional_block", (*alias)(c)})
}

func (a *Assignment) MarshalJSON() ([]byte, error) {
	type alias Assignment
	return json.Marshal(struct {
		Kind string `json:"kind"`
		*alias
	}{"assignment", (*alias)(a)})
}

func (s *Switch) MarshalJSON() ([]byte, error) {
	type alias Switch
	return json.Marshal(struct {
		Kind string `json:"kind"`
		*alias
	}{"switch", (*alias)(s)})
}

func (i *Identifier) MarshalJSON() ([]byte, error) {
	type alias Identifier
	return json.Marshal(struct {
		Kind string `json:"kind"`
		*alias
	}{"identifier", (*alias)(i)})
}

func (l *Literal) MarshalJSON() ([]byte, error) {
	type alias Literal
	return json.Marshal(struct {
		Kind string `json:"kind"`
		*alias
	}{"literal", (*alias)(l)})
}

func (b *BinaryOp) MarshalJSON() ([]byte, error) {
	type alias BinaryOp
	return json.Marshal(struct {
		Kind string `json:"kind"`
		*alias
	}{"binary_op", (*alias)(b)})
}
