package domain

import (
	"fmt"
	"time"
)

// OutcomeKind tags the result of one login attempt.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeAuthFailure
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeAuthFailure:
		return "auth_failure"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// TimestampLayout is the wall-clock format used in outcome texts.
const TimestampLayout = "2006-01-02 15:04:05"

// LocalOffset is the fixed offset of the "local" (Beijing) timestamp.
const LocalOffset = 8 * time.Hour

// Outcome is the result of one login attempt. Only the fields relevant to
// Kind are set: At for success, Detail for error.
type Outcome struct {
	Kind     OutcomeKind
	Username string
	At       time.Time // UTC instant the logout link was seen
	Detail   string
}

func Success(username string, at time.Time) Outcome {
	return Outcome{Kind: OutcomeSuccess, Username: username, At: at.UTC()}
}

func AuthFailure(username string) Outcome {
	return Outcome{Kind: OutcomeAuthFailure, Username: username}
}

func Failed(username string, err error) Outcome {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return Outcome{Kind: OutcomeError, Username: username, Detail: detail}
}

// UTCTime formats At in UTC.
func (o Outcome) UTCTime() string {
	return o.At.UTC().Format(TimestampLayout)
}

// LocalTime formats At shifted by LocalOffset.
func (o Outcome) LocalTime() string {
	return o.At.UTC().Add(LocalOffset).Format(TimestampLayout)
}

// Text renders the outcome as the human-readable line sent to the console
// and to notification sinks.
func (o Outcome) Text() string {
	switch o.Kind {
	case OutcomeSuccess:
		return fmt.Sprintf("账号 %s 于北京时间 %s（UTC时间 %s）登录成功！", o.Username, o.LocalTime(), o.UTCTime())
	case OutcomeAuthFailure:
		return fmt.Sprintf("账号 %s 登录失败，请检查账号和密码是否正确。", o.Username)
	default:
		return fmt.Sprintf("账号 %s 登录时出现错误: %s", o.Username, o.Detail)
	}
}

func (o Outcome) String() string { return o.Text() }
