package llm

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ProviderFactory 由配置构造供应商。配置键见各供应商包的文档。
type ProviderFactory func(config map[string]any) (Provider, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]ProviderFactory{}
)

// RegisterProvider 在供应商包的 init 中调用，同名注册覆盖旧值。
func RegisterProvider(name string, factory ProviderFactory) {
	factoriesMu.Lock()
	factories[name] = factory
	factoriesMu.Unlock()
}

func build(name string, config map[string]any) (Provider, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (registered: %s)", name, strings.Join(ListProviders(), ", "))
	}
	return factory(config)
}

// NewEmbeddingProvider 按名称构造向量供应商。
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	return build(name, config)
}

// NewChatProvider 按名称构造对话供应商。
func NewChatProvider(name string, config map[string]any) (ChatProvider, error) {
	return build(name, config)
}

// ListProviders 按字母序返回已注册的供应商名称。
func ListProviders() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
