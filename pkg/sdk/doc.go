// Package interviewd provides an embeddable Go client for the interviewd
// retrieval-augmented interview engine. It wires the full pipeline — text
// extraction, chunking, embedding, in-memory vector indexing and the bounded
// interview loop — in-process, without running the HTTP server.
//
//	client, _ := interviewd.New(ctx,
//	    interviewd.WithEmbedder(myEmbedder),
//	    interviewd.WithGenerator(myGenerator),
//	    interviewd.WithMaxQuestions(5),
//	)
//	defer client.Close()
//
//	up, _ := client.Upload(ctx, "backend.md", "text/markdown", jobDescription)
//	q, _ := client.Start(ctx, up.SessionID)
//	for {
//	    res, err := client.Answer(ctx, up.SessionID, readAnswer(q.Text))
//	    if err != nil || res.Complete {
//	        break
//	    }
//	    q = Question{Text: res.Question, Number: res.Number, Total: res.Total}
//	}
package interviewd
