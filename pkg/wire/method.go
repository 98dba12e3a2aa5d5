package wire

// Method is the enumerated set of HTTP verbs this codec recognises.
// Any request-line token outside this set fails parsing with ErrUnknownMethod.
type Method uint8

const (
	MethodUnknown Method = iota
	MethodGET
	MethodPOST
	MethodPUT
	MethodDELETE
	MethodPATCH
	MethodHEAD
	MethodOPTIONS
	MethodCONNECT
	MethodTRACE
)

var methodStrings = [...]string{
	MethodUnknown: "",
	MethodGET:     "GET",
	MethodPOST:    "POST",
	MethodPUT:     "PUT",
	MethodDELETE:  "DELETE",
	MethodPATCH:   "PATCH",
	MethodHEAD:    "HEAD",
	MethodOPTIONS: "OPTIONS",
	MethodCONNECT: "CONNECT",
	MethodTRACE:   "TRACE",
}

// String returns the wire representation of the method, or "" for MethodUnknown.
func (m Method) String() string {
	if int(m) >= len(methodStrings) {
		return ""
	}
	return methodStrings[m]
}

// ParseMethod converts a request-line method token into a Method.
// Returns MethodUnknown if the token is not one of the nine recognised verbs.
//
// Uses length-then-byte comparisons instead of a map lookup, in the style
// of a hand-compiled method switch.
func ParseMethod(tok []byte) Method {
	switch len(tok) {
	case 3:
		if tok[0] == 'G' && tok[1] == 'E' && tok[2] == 'T' {
			return MethodGET
		}
		if tok[0] == 'P' && tok[1] == 'U' && tok[2] == 'T' {
			return MethodPUT
		}
	case 4:
		if tok[0] == 'P' && tok[1] == 'O' && tok[2] == 'S' && tok[3] == 'T' {
			return MethodPOST
		}
		if tok[0] == 'H' && tok[1] == 'E' && tok[2] == 'A' && tok[3] == 'D' {
			return MethodHEAD
		}
	case 5:
		if tok[0] == 'P' && tok[1] == 'A' && tok[2] == 'T' && tok[3] == 'C' && tok[4] == 'H' {
			return MethodPATCH
		}
		if tok[0] == 'T' && tok[1] == 'R' && tok[2] == 'A' && tok[3] == 'C' && tok[4] == 'E' {
			return MethodTRACE
		}
	case 6:
		if tok[0] == 'D' && tok[1] == 'E' && tok[2] == 'L' && tok[3] == 'E' && tok[4] == 'T' && tok[5] == 'E' {
			return MethodDELETE
		}
	case 7:
		if tok[0] == 'O' && tok[1] == 'P' && tok[2] == 'T' && tok[3] == 'I' && tok[4] == 'O' && tok[5] == 'N' && tok[6] == 'S' {
			return MethodOPTIONS
		}
		if tok[0] == 'C' && tok[1] == 'O' && tok[2] == 'N' && tok[3] == 'N' && tok[4] == 'E' && tok[5] == 'C' && tok[6] == 'T' {
			return MethodCONNECT
		}
	}
	return MethodUnknown
}
