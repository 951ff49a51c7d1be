package llm

// HumanPrompt and AIPrompt are the conversation markers the completion API
// expects around every prompt.
const (
	HumanPrompt = "\n\nHuman:"
	AIPrompt    = "\n\nAssistant:"
)

// SearchQueryPriming primes the assistant so its next line is a bare search
// query.
const SearchQueryPriming = `Here is a possible search queries to find a solution to the issue described in the email.

Search query:
    -`

// ResponsePriming primes the assistant to open the drafted reply, paired
// with the closing tag as a stop sequence.
const ResponsePriming = "<response>"

// ResponseStop closes the drafted reply.
const ResponseStop = "</response>"

// SearchQueryPrompt asks for a search query addressing the given email.
func SearchQueryPrompt(email string) string {
	return `Using advanced search operators, provide a search query to address the given email:

<email>
` + email + `
</email>

`
}

// AnswerPrompt asks for a reply to the email grounded on the given resource
// sections.
func AnswerPrompt(sections, email string) string {
	return `Use the following resource sections to respond to the given email.

<email>
` + email + `
<email>



<resource>
` + sections + `
</resource>


`
}
