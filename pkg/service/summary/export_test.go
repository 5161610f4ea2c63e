package summary

var BuildSystemPrompt = buildSystemPrompt

func BuildUserPrompt(input Input, maxHigh int) string {
	c := &client{maxHigh: maxHigh}
	return c.buildUserPrompt(input)
}
