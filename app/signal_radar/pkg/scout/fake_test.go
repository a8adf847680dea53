package scout

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/components/model"
)

// fakeCompleter 按顺序返回预设回复
type fakeCompleter struct {
	replies []string
	err     error
	calls   int
	prompts []string
	opts    []*model.Options
}

func (f *fakeCompleter) Complete(_ context.Context, _, user string, opts ...model.Option) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, user)
	f.opts = append(f.opts, model.GetCommonOptions(nil, opts...))
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no reply")
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}
