package eino

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
)

type callKey struct{}

// newChatModelCallbackHandler 把 eino ChatModel 的回调转成 Call 观测
func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: func(ctx context.Context, _ *einocb.RunInfo, input *model.CallbackInput) context.Context {
			var modelName string
			if input != nil && input.Config != nil {
				modelName = input.Config.Model
			}
			ctx, call := StartCall(ctx, "", modelName)
			return context.WithValue(ctx, callKey{}, call)
		},

		OnEnd: func(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			call, ok := ctx.Value(callKey{}).(*Call)
			if !ok {
				return ctx
			}
			var prompt, completion int
			if output != nil {
				if output.Config != nil {
					call.SetModel(output.Config.Model)
				}
				if output.TokenUsage != nil {
					prompt = output.TokenUsage.PromptTokens
					completion = output.TokenUsage.CompletionTokens
				}
			}
			call.Done(prompt, completion, nil)
			return ctx
		},

		OnError: func(ctx context.Context, _ *einocb.RunInfo, err error) context.Context {
			if call, ok := ctx.Value(callKey{}).(*Call); ok {
				call.Done(0, 0, err)
			}
			return ctx
		},
	}
}
