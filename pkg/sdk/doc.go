// Package arbitro embeds the arbitro fragment locator in another Go program.
//
// The locator finds the 1-based page of a PDF whose text contains a fragment.
// Documents are referenced by http(s) URL or by a path under a documents root.
// Decoded page text can be cached in process or in Valkey/Redis.
//
//	client, _ := arbitro.New(ctx,
//	    arbitro.WithDocumentsRoot("/srv/reglas"),
//	    arbitro.WithValkey("localhost:6379", ""),
//	)
//	defer client.Close()
//
//	res, _ := client.Locate(ctx, "Un jugador estará en posición de fuera de juego", "ifab-2024.pdf")
//	fmt.Println(res.Page)
package arbitro
