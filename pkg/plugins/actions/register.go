package actions

import (
	"time"

	"github.com/g4-api/g4-plugins-go/pkg/registry"
	"github.com/g4-api/g4-plugins-go/pkg/session"
)

// Register adds every built-in Action plugin to the registration table. The
// wait timeout bounds element waits for all element-targeting actions.
func Register(b *registry.Builder, waitTimeout time.Duration) {
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	b.RegisterAction("InvokeClick", func(sess *session.Context) registry.Action {
		return &InvokeClick{Session: sess, WaitTimeout: waitTimeout}
	})
	b.RegisterAction("SendKeys", func(sess *session.Context) registry.Action {
		return &SendKeys{Session: sess, WaitTimeout: waitTimeout}
	})
	b.RegisterAction("OpenUrl", func(sess *session.Context) registry.Action {
		return &OpenUrl{Session: sess}
	})
	b.RegisterAction("ExtractText", func(sess *session.Context) registry.Action {
		return &ExtractText{Session: sess, WaitTimeout: waitTimeout}
	})
}
