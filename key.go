package memocache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"strings"
)

// Args carries the call arguments of a memoized function: an ordered
// positional list and a named keyword map. Keyword ordering never affects
// the derived key; names are canonicalized by sorting.
type Args struct {
	Positional []any
	Keyword    map[string]any
}

// KeyBuilder derives a backend key from a namespace, a handler identity,
// and the call arguments. The output is a pure function of its inputs:
// identical inputs always produce the identical key.
type KeyBuilder interface {
	Build(namespace, identity string, args Args) (string, error)
}

// maxRawDigest is the canonical-argument length above which the key falls
// back to a hash. Short argument encodings stay readable in the store.
const maxRawDigest = 64

type defaultKeyBuilder struct{}

// NewKeyBuilder returns the default key builder. Keys have the shape
// "<namespace>:<identity>:<digest>" where digest is the canonical argument
// encoding verbatim when short and printable, and its SHA-256 hex
// otherwise.
func NewKeyBuilder() KeyBuilder {
	return defaultKeyBuilder{}
}

func (defaultKeyBuilder) Build(namespace, identity string, args Args) (string, error) {
	canonical, err := canonicalArgs(args)
	if err != nil {
		return "", err
	}
	digest := canonical
	if len(digest) > maxRawDigest || !keySafe(digest) {
		sum := sha256.Sum256([]byte(canonical))
		digest = hex.EncodeToString(sum[:])
	}
	return namespace + ":" + identity + ":" + digest, nil
}

// canonicalArgs renders the arguments into a deterministic textual form.
// Keyword arguments are sorted by name so call-site ordering is
// irrelevant. Values without a canonical encoding (functions, channels,
// complex numbers) are a configuration error.
func canonicalArgs(args Args) (string, error) {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, v := range args.Positional {
		if i > 0 {
			sb.WriteByte(',')
		}
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("memocache: positional argument %d is not encodable for key construction: %w", i, err)
		}
		sb.Write(data)
	}
	sb.WriteByte(')')
	if len(args.Keyword) > 0 {
		names := make([]string, 0, len(args.Keyword))
		for name := range args.Keyword {
			names = append(names, name)
		}
		sort.Strings(names)
		sb.WriteByte('{')
		for i, name := range names {
			if i > 0 {
				sb.WriteByte(',')
			}
			data, err := json.Marshal(args.Keyword[name])
			if err != nil {
				return "", fmt.Errorf("memocache: keyword argument %q is not encodable for key construction: %w", name, err)
			}
			sb.WriteString(name)
			sb.WriteByte('=')
			sb.Write(data)
		}
		sb.WriteByte('}')
	}
	return sb.String(), nil
}

// keySafe reports whether s can be used verbatim in a backend key. Keys
// must be printable and free of whitespace; memcached in particular
// rejects keys with spaces or control bytes.
func keySafe(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] <= ' ' || s[i] >= 0x7f {
			return false
		}
	}
	return true
}

// FuncIdentity derives a stable identity for a function or method value:
// its package path and qualified name as reported by the runtime. Two
// distinct functions never share an identity, so identical arguments to
// different handlers cannot collide. Returns "" when fn is not a func.
func FuncIdentity(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return ""
	}
	// Method values carry a "-fm" suffix; strip it so a method bound to
	// different receivers keeps one identity. Receiver state is keyed
	// explicitly via Config.Name or a positional argument.
	return strings.TrimSuffix(rf.Name(), "-fm")
}
