// Copyright (C) 2021 Michael J. Fromberger. All Rights Reserved.

package jbind

// Token is the type of a token in a JSON token stream.
type Token byte

// Constants defining the valid Token values.
const (
	Invalid     Token = iota // invalid token, or no token
	StartObject              // left brace "{"
	EndObject                // right brace "}"
	StartArray               // left square bracket "["
	EndArray                 // right square bracket "]"
	FieldName                // object member name
	String                   // string value
	Int                      // number with no fraction or exponent
	Float                    // number with fraction and/or exponent
	True                     // constant: true
	False                    // constant: false
	Null                     // constant: null
	Embedded                 // an opaque value stored in a token buffer
)

var tokenStr = [...]string{
	Invalid:     "invalid token",
	StartObject: `"{"`,
	EndObject:   `"}"`,
	StartArray:  `"["`,
	EndArray:    `"]"`,
	FieldName:   "field name",
	String:      "string",
	Int:         "integer",
	Float:       "number",
	True:        "true",
	False:       "false",
	Null:        "null",
	Embedded:    "embedded value",
}

func (t Token) String() string {
	v := int(t)
	if v >= len(tokenStr) {
		return tokenStr[Invalid]
	}
	return tokenStr[v]
}

// IsScalar reports whether t is a scalar value token.
func (t Token) IsScalar() bool { return t >= String && t <= Embedded }

// IsNumber reports whether t is Int or Float.
func (t Token) IsNumber() bool { return t == Int || t == Float }

// IsStructStart reports whether t opens an object or array.
func (t Token) IsStructStart() bool { return t == StartObject || t == StartArray }

// IsStructEnd reports whether t closes an object or array.
func (t Token) IsStructEnd() bool { return t == EndObject || t == EndArray }
