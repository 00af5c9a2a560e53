package biz

import (
	"strings"

	"github.com/kart-io/catalog-chat/pkg/errors"
	"github.com/kart-io/catalog-chat/pkg/llm"
)

// 系统指令中的占位符。
const (
	ContextSlot  = "{context}"
	CurrencySlot = "{currency}"
)

// DefaultCurrencySymbol 默认货币符号。
const DefaultCurrencySymbol = "£"

// DefaultSystemPrompt 默认系统指令。{currency} 在构造时替换，{context} 在每次渲染时替换。
const DefaultSystemPrompt = `
You are a knowledgeable and friendly personal assistant for an e-commerce store.

When recommending products, make your answers visually appealing and easy to read:
- Use bullet points or numbered lists for product options.
- Add a blank line between each product.
- Show only the most important details: Brand, Product Name, Price, MRP, Offer.
- Keep each product's info concise and on separate lines.
- If there are multiple products, limit to 3-4 at a time and say "Let me know if you'd like to see more options!"
- Start with a short, friendly intro and end with a helpful closing line.

Example format for recommendations:

Here are some sarees you might like:

1. Brand: Sugathari
    Product: Women's Banarasi Saree Pure Kanjivaram Silk Saree
    Price: {currency}5.22 (MRP: {currency}21.84, 76% off)

2. Brand: Sugathari
    Product: Women's Banarasi Saree Pure Kanjivaram Silk Saree (Cotton)
    Price: {currency}4.74 (MRP: {currency}21.84, 78% off)

Let me know if you want more details or to place an order!

---

Other instructions:
- ONLY provide information that is explicitly mentioned in the context provided.
- Always display all prices in {currency}, never in any other currency.
- If specific details (prices, brands, materials) of a product are not in the context, DO NOT make them up.
- If you're unsure or don't have enough information, say so directly.
- If the context below is empty, say that the information is not available.
- When asked to recommend a product under a certain price, only show products that meet the user's condition.
- Format prices exactly as they appear in the context, don't modify them.
- For invoices, keep the format clean and easy to read, using lines and spacing for clarity.
- Be professional, brief, and visually clear in your responses.

Current context about our products and inventory:
{context}
`

// PromptTemplate 组装发送给对话模型的消息。
type PromptTemplate struct {
	instruction string
}

// NewPromptTemplate 创建提示词模板。instruction 为空时使用 DefaultSystemPrompt，
// currency 为空时使用 DefaultCurrencySymbol。指令必须恰好包含一个 {context}。
func NewPromptTemplate(instruction, currency string) (*PromptTemplate, error) {
	if instruction == "" {
		instruction = DefaultSystemPrompt
	}
	if currency == "" {
		currency = DefaultCurrencySymbol
	}

	switch n := strings.Count(instruction, ContextSlot); {
	case n == 0:
		return nil, errors.ErrConfiguration.WithMessage("system prompt must contain " + ContextSlot)
	case n > 1:
		return nil, errors.ErrConfiguration.WithMessage("system prompt must contain a single " + ContextSlot)
	}

	return &PromptTemplate{
		instruction: strings.ReplaceAll(instruction, CurrencySlot, currency),
	}, nil
}

// Instruction 返回替换货币符号后的系统指令。
func (p *PromptTemplate) Instruction() string {
	return p.instruction
}

// Render 按顺序生成消息：系统指令、历史对话、当前输入。
// 文档块文本按原样以空行拼接，不做任何改写。
func (p *PromptTemplate) Render(result *RetrievalResult, history []Turn, input string) []llm.Message {
	docs := strings.Join(result.Texts(), "\n\n")

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: strings.Replace(p.instruction, ContextSlot, docs, 1),
	})
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Text})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: input})
	return messages
}
