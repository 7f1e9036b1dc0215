package protocol

import (
	"encoding/json"
	"fmt"
)

// ParseError wraps a failure to parse the input as JSON at all
// (classification rule 1). Maps onto wire code CodeParseError.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("protocol: parse error: %v", e.Err) }
func (e *ParseError) Unwrap() error  { return e.Err }

// InvalidRequestError wraps any envelope that is syntactically valid
// JSON but does not conform to the JSON-RPC 2.0 envelope shape
// (classification rules 2 and 3). Maps onto wire code CodeInvalidRequest.
//
// ID carries a best-effort recovered request id (nil if none could be
// parsed) so the caller can echo it back when constructing an error
// Response, per spec.md's narrow null-id allowance.
type InvalidRequestError struct {
	Reason string
	ID     *RequestId
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("protocol: invalid request: %s", e.Reason)
}

// wireMessage is the single struct used for both encoding and decoding so
// that member order on the wire (jsonrpc, id, method, params, result,
// error) falls directly out of Go's struct-field-declaration-order
// marshaling, without hand-rolled buffer construction.
type wireMessage struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      *RequestId    `json:"id,omitempty"`
	Method  string        `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JsonRpcError `json:"error,omitempty"`
}

// EncodeRequest serializes a Request envelope.
func EncodeRequest(req *Request) ([]byte, error) {
	id := req.ID
	w := wireMessage{JSONRPC: Version, ID: &id, Method: req.Method, Params: req.Params}
	return json.Marshal(w)
}

// EncodeNotification serializes a Notification envelope.
func EncodeNotification(n *Notification) ([]byte, error) {
	w := wireMessage{JSONRPC: Version, Method: n.Method, Params: n.Params}
	return json.Marshal(w)
}

// EncodeResponse serializes a Response envelope. Returns an error if
// Result and Error are both set or both unset, enforcing the
// "exactly one of result or error" invariant at the encoder boundary.
func EncodeResponse(resp *Response) ([]byte, error) {
	hasResult := len(resp.Result) > 0
	hasError := resp.Error != nil
	if hasResult == hasError {
		return nil, fmt.Errorf("protocol: response must have exactly one of result or error")
	}
	id := resp.ID
	w := wireMessage{JSONRPC: Version, ID: &id, Result: resp.Result, Error: resp.Error}
	return json.Marshal(w)
}

// Encode dispatches to the matching Encode* function based on the
// dynamic type of e.
func Encode(e Envelope) ([]byte, error) {
	switch v := e.(type) {
	case *Request:
		return EncodeRequest(v)
	case *Response:
		return EncodeResponse(v)
	case *Notification:
		return EncodeNotification(v)
	default:
		return nil, fmt.Errorf("protocol: unknown envelope type %T", e)
	}
}

// Decode classifies and parses a single JSON-RPC message, applying the
// rules in order:
//
//  1. not valid JSON -> *ParseError
//  2. not a JSON object, or jsonrpc != "2.0" -> *InvalidRequestError
//  3. method+id -> Request; method alone -> Notification; result XOR
//     error (with id) -> Response; anything else -> *InvalidRequestError
//
// A null id is rejected on a Request, and on a Response unless it carries
// a parse-error or invalid-request error. Unknown top-level members are
// ignored, not rejected.
func Decode(data []byte) (Envelope, error) {
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, &ParseError{Err: err}
	}
	if _, ok := generic.(map[string]interface{}); !ok {
		return nil, &InvalidRequestError{Reason: "top-level JSON value must be an object"}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &InvalidRequestError{Reason: "malformed object"}
	}

	recoveredID := recoverID(raw)

	verRaw, hasVersion := raw["jsonrpc"]
	var version string
	if hasVersion {
		_ = json.Unmarshal(verRaw, &version)
	}
	if !hasVersion || version != Version {
		return nil, &InvalidRequestError{Reason: `jsonrpc member must be the literal "2.0"`, ID: recoveredID}
	}

	methodRaw, hasMethod := raw["method"]
	idRaw, hasID := raw["id"]
	resultRaw, hasResult := raw["result"]
	errRaw, hasError := raw["error"]

	switch {
	case hasMethod && hasID:
		var method string
		if err := json.Unmarshal(methodRaw, &method); err != nil {
			return nil, &InvalidRequestError{Reason: "method must be a string", ID: recoveredID}
		}
		var id RequestId
		if err := json.Unmarshal(idRaw, &id); err != nil {
			return nil, &InvalidRequestError{Reason: fmt.Sprintf("invalid request id: %v", err)}
		}
		if id.IsNull() {
			return nil, &InvalidRequestError{Reason: "request id must not be null", ID: recoveredID}
		}
		return &Request{ID: id, Method: method, Params: raw["params"]}, nil

	case hasMethod && !hasID:
		var method string
		if err := json.Unmarshal(methodRaw, &method); err != nil {
			return nil, &InvalidRequestError{Reason: "method must be a string", ID: recoveredID}
		}
		return &Notification{Method: method, Params: raw["params"]}, nil

	case hasID && (hasResult != hasError):
		var id RequestId
		if err := json.Unmarshal(idRaw, &id); err != nil {
			return nil, &InvalidRequestError{Reason: fmt.Sprintf("invalid response id: %v", err)}
		}
		resp := &Response{ID: id}
		if hasResult {
			resp.Result = resultRaw
		} else {
			var rpcErr JsonRpcError
			if err := json.Unmarshal(errRaw, &rpcErr); err != nil {
				return nil, &InvalidRequestError{Reason: "invalid error object", ID: recoveredID}
			}
			resp.Error = &rpcErr
		}
		if id.IsNull() && (resp.Error == nil || (resp.Error.Code != CodeParseError && resp.Error.Code != CodeInvalidRequest)) {
			return nil, &InvalidRequestError{Reason: "a null id is only valid on a parse-error or invalid-request response", ID: recoveredID}
		}
		return resp, nil

	default:
		return nil, &InvalidRequestError{Reason: "message is neither a request, a notification, nor a response", ID: recoveredID}
	}
}

// recoverID makes a best-effort attempt to parse the "id" member so an
// error Response can echo it back instead of falling through to null.
func recoverID(raw map[string]json.RawMessage) *RequestId {
	idRaw, ok := raw["id"]
	if !ok {
		return nil
	}
	var id RequestId
	if err := json.Unmarshal(idRaw, &id); err != nil {
		return nil
	}
	return &id
}
