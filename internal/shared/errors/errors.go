package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind 标识错误所属的流水线阶段，决定调用方的处理策略。
type Kind int

const (
	KindUnknown   Kind = iota
	KindRetrieval      // 源抓取失败：跳过该源
	KindParse          // 行解析失败：跳过该行
	KindLookup         // 地理位置查询失败：标注为 Unknown
	KindUpload         // 发布失败：终止本次运行
)

func (k Kind) String() string {
	switch k {
	case KindRetrieval:
		return "retrieval"
	case KindParse:
		return "parse"
	case KindLookup:
		return "lookup"
	case KindUpload:
		return "upload"
	default:
		return "unknown"
	}
}

// Error is an error object with a kind, optional prefixes and an underlying error.
type Error struct {
	kind    Kind
	prefix  []interface{}
	message []interface{}
	inner   error
}

// Error implements error.Error().
func (err *Error) Error() string {
	builder := strings.Builder{}
	for _, prefix := range err.prefix {
		builder.WriteByte('[')
		builder.WriteString(fmt.Sprint(prefix))
		builder.WriteString("] ")
	}

	builder.WriteString(concat(err.message...))

	if err.inner != nil {
		builder.WriteString(" > ")
		builder.WriteString(err.inner.Error())
	}

	return builder.String()
}

// Base sets the underlying error.
func (err *Error) Base(e error) *Error {
	err.inner = e
	return err
}

// AtSource prepends a prefix, usually the source or path the error refers to.
func (err *Error) AtSource(p interface{}) *Error {
	err.prefix = append(err.prefix, p)
	return err
}

func (err *Error) Unwrap() error {
	return err.inner
}

func (err *Error) Kind() Kind {
	return err.kind
}

// String returns the string representation of this error.
func (err *Error) String() string {
	return err.Error()
}

// New returns a new error object with message formed from given arguments.
func New(kind Kind, msg ...interface{}) *Error {
	return &Error{
		kind:    kind,
		message: msg,
	}
}

// KindOf returns the kind of the outermost *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func concat(v ...interface{}) string {
	parts := make([]string, 0, len(v))
	for _, p := range v {
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, "")
}
