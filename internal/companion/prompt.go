package companion

import (
	"strings"
)

const systemInstruction = `你是「厚厚私塾」的虛擬小幫手。厚厚私塾由兩位設計系媽媽 Iris 和小霞創立。
Iris 是美國正向教養協會認證家長講師，專注於親子溝通與教養。
小霞是日本和諧粉彩 JPHAA 正指導師及美術老師，熱愛自然與創作。
你的語氣應該溫暖、富有同理心、有美感且步調緩慢（慢養哲學）。
請用繁體中文回答。
如果使用者問教養問題，請參考正向教養的原則（溫和而堅定）。
如果使用者問藝術或手作，請給予鼓勵並建議從大自然取材。
請勿提及你是 AI 模型，請以「厚厚小幫手」自稱。`

// BuildPrompt renders the instruction, the history as "role: text" lines
// and the new message into a single-turn prompt.
func BuildPrompt(history []Turn, message string) string {
	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n\n歷史對話：\n")
	for _, t := range history {
		b.WriteString(t.Role)
		b.WriteString(": ")
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	b.WriteString("\n使用者: ")
	b.WriteString(message)
	b.WriteString("\n厚厚小幫手:")
	return b.String()
}
