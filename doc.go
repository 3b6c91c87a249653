/*
Package orderdesk runs scripted customer-support conversations about a small
fixed set of orders, for studies of how people work with a chat assistant.

Each user moves through a fixed sequence of phases: acknowledging the
introduction, giving a customer number, choosing an order, and then working
through the operations offered for that order. The first three phases are
answered with canned text; only the order menu asks a language model, and its
replies are cached by conversation history so identical conversations always
see identical answers. Every message is written to an append-only
conversation log, and three scripted tasks are detected in the model replies.

# Usage

	model, err := openai.New(openai.Config{APIKey: os.Getenv("OPENAI_API_KEY")})
	if err != nil {
		log.Fatal(err)
	}

	desk, err := orderdesk.New(model,
		orderdesk.WithAuditLogger(audit.NewFileSink("")),
	)
	if err != nil {
		log.Fatal(err)
	}

	// The first message starts the session and returns the introduction.
	res, err := desk.HandleTurn(ctx, "participant-7", "")
	fmt.Println(res.Reply, res.Options)

	res, err = desk.HandleTurn(ctx, "participant-7", "Understood")

The same Desk is served over HTTP by pkg/adapters/http and to agents by
pkg/adapters/mcp.
*/
package orderdesk
