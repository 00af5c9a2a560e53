package biz_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/catalog-chat/internal/chat/biz"
	"github.com/kart-io/catalog-chat/internal/chat/store"
	errs "github.com/kart-io/catalog-chat/pkg/errors"
	"github.com/kart-io/catalog-chat/pkg/llm"
)

func TestNewPromptTemplate_Validation(t *testing.T) {
	tests := []struct {
		name        string
		instruction string
		wantErr     bool
	}{
		{name: "默认指令", instruction: "", wantErr: false},
		{name: "自定义指令", instruction: "Answer from:\n{context}", wantErr: false},
		{name: "缺少占位符", instruction: "Answer politely.", wantErr: true},
		{name: "重复占位符", instruction: "{context} and {context}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := biz.NewPromptTemplate(tt.instruction, "£")
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errs.ErrConfiguration))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPromptTemplate_Currency(t *testing.T) {
	tpl, err := biz.NewPromptTemplate("", "€")
	require.NoError(t, err)
	assert.NotContains(t, tpl.Instruction(), biz.CurrencySlot)
	assert.Contains(t, tpl.Instruction(), "€4.74")
	assert.Contains(t, tpl.Instruction(), biz.ContextSlot)

	def := mustTemplate(t)
	assert.Contains(t, def.Instruction(), "Always display all prices in £")
}

func TestPromptTemplate_RenderOrder(t *testing.T) {
	tpl := mustTemplate(t)
	history := []biz.Turn{biz.UserTurn("A"), biz.AssistantTurn("B"), biz.UserTurn("C")}
	result := &biz.RetrievalResult{Results: []*store.SearchResult{
		{Content: "Brand: Sugathari\nPrice: £4.74"},
		{Content: "Brand: Roadster\nPrice: £8.50"},
	}}

	msgs := tpl.Render(result, history, "D")
	require.Len(t, msgs, 5)

	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Brand: Sugathari\nPrice: £4.74\n\nBrand: Roadster\nPrice: £8.50")
	assert.NotContains(t, msgs[0].Content, biz.ContextSlot)

	got := make([]string, 0, 4)
	for _, m := range msgs[1:] {
		got = append(got, string(m.Role)+":"+m.Content)
	}
	assert.Equal(t, []string{"user:A", "assistant:B", "user:C", "user:D"}, got)
}

func TestPromptTemplate_EmptyContext(t *testing.T) {
	tpl, err := biz.NewPromptTemplate("Context:\n{context}\nEnd", "")
	require.NoError(t, err)

	msgs := tpl.Render(&biz.RetrievalResult{}, nil, "any saree?")
	require.Len(t, msgs, 2)
	assert.Equal(t, "Context:\n\nEnd", msgs[0].Content)
	assert.Equal(t, "any saree?", msgs[1].Content)
}

func TestPromptTemplate_PriceVerbatim(t *testing.T) {
	tpl := mustTemplate(t)
	result := &biz.RetrievalResult{Results: []*store.SearchResult{{Content: "MRP: £21.84"}}}

	msgs := tpl.Render(result, nil, "price?")
	_, ctxPart, found := strings.Cut(msgs[0].Content, "Current context about our products and inventory:")
	require.True(t, found)
	assert.Equal(t, "\nMRP: £21.84\n", ctxPart)
}
