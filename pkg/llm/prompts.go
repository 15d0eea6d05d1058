package llm

import (
	"fmt"
	"strings"
)

const plannerSystemPrompt = "You are a planning assistant. You write short, reusable instructions for sub-agents that each read the pages of a single document. The sub-agents cannot see the other documents or talk to each other."

const synthesisSystemPrompt = "You are a financial analysis assistant. You answer questions using only the extracted document context provided to you, and you produce a chart to support the answer."

func buildPlannerPrompt(question string) string {
	var b strings.Builder
	b.WriteString("A user asked the following question about a set of documents:\n\n")
	b.WriteString(question)
	b.WriteString("\n\nWrite ONE instruction that will be given verbatim to every sub-agent. ")
	b.WriteString("Each sub-agent sees the page images of exactly one document and must extract ")
	b.WriteString("the figures and facts needed to answer the question. ")
	b.WriteString("The instruction must ask for concise, clearly labeled values. ")
	b.WriteString("Output only the instruction, with no preamble.")
	return b.String()
}

func buildSynthesisPrompt(question, combined string) string {
	var b strings.Builder
	b.WriteString("Question:\n")
	b.WriteString(question)
	b.WriteString("\n\nExtracted context, one block per source document:\n\n")
	b.WriteString(combined)
	b.WriteString("\n\nTask: Answer the question using only the context above. ")
	b.WriteString("Reference each document label you used. ")
	b.WriteString("Then emit exactly one fenced code block (```python ... ```) containing a ")
	b.WriteString("matplotlib script that charts the relevant figures. The script must be ")
	b.WriteString(fmt.Sprintf("self-contained and save the figure to %q instead of showing it.", "chart.png"))
	return b.String()
}
