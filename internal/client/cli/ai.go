package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/mkorchagin/quicknotes/internal/client/ai"
)

// draft asks the generative backend for note content. The result lands
// in the open note's body through the normal debounced write path, so a
// failed save behaves like any other edit.
func (a *App) draft(ctx context.Context) {
	note, ok := a.state.CurrentNote()
	if !ok {
		fmt.Println("Open a note first; the draft goes into its body.")
		return
	}

	key, err := ai.LoadAPIKey()
	if err != nil || key == "" {
		fmt.Println("No API key configured. Use 'setkey' first.")
		return
	}

	prompt, err := getMultiline(a.reader, "Describe what to draft", os.Stdout)
	if err != nil || prompt == "" {
		return
	}

	fmt.Println("Generating...")
	text, err := ai.New(key, a.logger).Generate(ctx, prompt)
	if err != nil {
		// The joined error ends with the last model's failure, which is
		// what the user needs to see.
		log.Printf("Generation failed: %s", err.Error())
		return
	}

	// Append to the pending draft, not the cache, so an edit still in
	// the debounce window is not overwritten.
	fields := a.draftFields(note)
	if fields.Content != "" {
		fields.Content = fields.Content + "\n\n" + text
	} else {
		fields.Content = text
	}

	fmt.Println(text)
	a.autosave.Schedule(note.ID, fields)
}

// setAPIKey stores the generative backend credential in its well-known
// location, overwriting any previous value.
func (a *App) setAPIKey(ctx context.Context) {
	key, err := getSimpleText(a.reader, "Enter API key", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	if err := ai.SaveAPIKey(key); err != nil {
		log.Printf("Saving key failed: %s", err.Error())
		return
	}
	fmt.Println("Saved.")
}
