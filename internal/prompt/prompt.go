// Package prompt builds the chat transcripts sent for each strategy.
package prompt

import (
	"fmt"
	"strings"

	"github.com/signalnine/promptbench/internal/llm"
)

const SystemPrompt = "Your task is to solve a series of math word problems by providing the final answer. Output format: #### integer . e.g.: #### 16 if the answer is 16"

type Exemplar struct {
	Question string
	Answer   string
}

// Exemplars are worked GSM8K solutions used as few-shot demonstrations.
var Exemplars = []Exemplar{
	{
		"There are 15 trees in the grove. Grove workers will plant trees in the grove today. After they are done, there will be 21 trees. How many trees did the grove workers plant today?",
		"There are 15 trees originally. Then there were 21 trees after the Grove workers planted some more. So there must have been 21 - 15 = <<21-15=6>>6 trees that were planted.\n#### 6",
	},
	{
		"If there are 3 cars in the parking lot and 2 more cars arrive, how many cars are in the parking lot?",
		"There are originally 3 cars. Then 2 more cars arrive. Now 3 + 2 = <<3+2=5>>5 cars are in the parking lot.\n#### 5",
	},
	{
		"Leah had 32 chocolates and her sister had 42. If they ate 35, how many pieces do they have left in total?",
		"Originally, Leah had 32 chocolates and her sister had 42. So in total they had 32 + 42 = <<32+42=74>>74. After eating 35, they had 74 - 35 = <<74-35=39>>39 pieces left in total.\n#### 39",
	},
	{
		"Jason had 20 lollipops. He gave Denny some lollipops. Now Jason has 12 lollipops. How many lollipops did Jason give to Denny?",
		"Jason had 20 lollipops originally. Then he had 12 after giving some to Denny. So he gave Denny 20 - 12 = <<20-12=8>>8 lollipops.\n#### 8",
	},
	{
		"Shawn has five toys. For Christmas, he got two toys each from his mom and dad. How many toys does he have now?",
		"Shawn started with 5 toys. He then got 2 toys each from his mom and dad. So he got 2 * 2 = <<2*2=4>>4 more toys. Now he has 5 + 4 = <<5+4=9>>9 toys.\n#### 9",
	},
	{
		"There were nine computers in the server room. Five more computers were installed each day, from monday to thursday. How many computers are now in the server room?",
		"There were originally 9 computers. For each day from monday to thursday, 5 more computers were installed. So 4 * 5 = <<4*5=20>>20 computers were added. Now 9 + 20 = <<9+20=29>>29 computers are now in the server room.\n#### 29",
	},
	{
		"Michael had 58 golf balls. On tuesday, he lost 23 golf balls. On wednesday, he lost 2 more. How many golf balls did he have at the end of wednesday?",
		"Michael started with 58 golf balls. He lost 23 on Tuesday, and lost 2 more on wednesday. So he had 58 - 23 = <<58-23=35>>35 at the end of Tuesday, and 35 - 2 = <<35-2=33>>33 at the end of wednesday.\n#### 33",
	},
	{
		"Olivia has $23. She bought five bagels for $3 each. How much money does she have left?",
		"Olivia had 23 dollars. She bought 5 bagels for 3 dollars each. So she spent 5 * 3 = <<5*3=15>>15 dollars. Now she has 23 - 15 = <<23-15=8>>8 dollars left.\n#### 8",
	},
}

func questionTurn(q string) string { return "Question: " + q }
func answerTurn(a string) string   { return "Answer:\nLet's think step by step.\n" + a }

// NShot returns the system prompt, the first n exemplars as alternating
// user/assistant turns, and the question. n is clamped to the exemplar count.
func NShot(n int, question string) []llm.Message {
	if n < 0 {
		n = 0
	}
	if n > len(Exemplars) {
		n = len(Exemplars)
	}
	msgs := make([]llm.Message, 0, 2+2*n)
	msgs = append(msgs, llm.System(SystemPrompt))
	for _, ex := range Exemplars[:n] {
		msgs = append(msgs, llm.User(questionTurn(ex.Question)), llm.Assistant(answerTurn(ex.Answer)))
	}
	return append(msgs, llm.User(questionTurn(question)))
}

var HintTemplates = []string{
	"Please carefully analyze the key numbers and mathematical relationships in the problem",
	"Try to solve step by step, calculating intermediate results first",
	"Consider using reverse thinking, working backwards from the answer",
	"Check each step of your calculation process for correctness",
	"Re-examine the core requirements of the problem",
}

const formatInstruction = "IMPORTANT: Please provide your answer in the standard format '#### [number]' at the end of your response. Do not include lengthy explanations or analysis - just show your work briefly and end with the final answer in the required format."

// Hint builds the hint for hint round k (1-based). previous is the raw
// answer text from the last attempt; when it is unusable, the hint asks the
// model to restate its answer in the marker format instead of echoing it.
func Hint(templates []string, k int, previous string, usable bool) string {
	if len(templates) == 0 {
		templates = HintTemplates
	}
	if k < 1 {
		k = 1
	}
	base := templates[(k-1)%len(templates)]
	if usable {
		return fmt.Sprintf("%s\n\nThe previous answer is %s. Please re-check and give the final answer.", base, previous)
	}
	return base + "\n\n" + formatInstruction
}

// Hinted appends a hint to the question text.
func Hinted(question, hint string) string {
	return question + "\n\nHint: " + hint
}

// UsableAnswer reports whether a previous raw answer is worth echoing back.
// Empty, "none"/"null" and answers longer than maxLen are not.
func UsableAnswer(raw string, maxLen int) bool {
	s := strings.TrimSpace(raw)
	if s == "" {
		return false
	}
	switch strings.ToLower(s) {
	case "none", "null":
		return false
	}
	return maxLen <= 0 || len(s) <= maxLen
}

// Code asks for a Python program that prints the answer.
func Code(question string) []llm.Message {
	return []llm.Message{llm.User(fmt.Sprintf(`Please solve this math problem by writing Python code.

Problem: %s

Requirements:
1. Write Python code to solve the problem step by step
2. Use clear variable names and comments
3. Print the final answer at the end
4. Make sure the code is executable
5. Always define variables before using them

Python code:`, question))}
}
