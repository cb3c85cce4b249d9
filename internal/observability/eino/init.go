package eino

import (
	"sync"

	einocallbacks "github.com/cloudwego/eino/callbacks"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
)

var registerOnce sync.Once

// Init 注册全局 ChatModel 回调，重复调用无副作用。
// 只覆盖经由 eino 的提供商，其余适配器直接使用 StartCall。
func Init() {
	registerOnce.Do(func() {
		einocallbacks.AppendGlobalHandlers(cbtemplate.NewHandlerHelper().
			ChatModel(newChatModelCallbackHandler()).
			Handler())
	})
}
