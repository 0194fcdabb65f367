package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/mkorchagin/quicknotes/internal/common"
)

// getSimpleText, getPassword and getMultiline are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getMultiline = GetMultiline

// Register prompts the user for a username and password and attempts to
// create a new account. The server signs the new user straight in, so a
// successful registration also attaches the note subscription.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.sessions.Register(ctx, userName, password); err != nil {
		if errors.Is(err, common.ErrUserExists) {
			fmt.Println("That username is already taken.")
			return nil
		}
		log.Printf("Registration unsuccessful: %s", err.Error())
		return nil
	}

	fmt.Println("Success!")
	return nil
}

// Login prompts the user for credentials and tries to authenticate.
// On success the session observer fires and the coordinator attaches
// the note subscription; the first snapshot arrives shortly after.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.sessions.Login(ctx, userName, password); err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			fmt.Println("Invalid username or password.")
			return nil
		}
		log.Printf("Login unsuccessful: %s", err.Error())
		return nil
	}

	log.Printf("Login successful")
	return nil
}

// Logout discards the session: armed autosave timers are cancelled (not
// fired), the editor state is reset, and the sign-out event makes the
// coordinator drop the subscription and clear the cache.
func (a *App) Logout(ctx context.Context) error {
	a.autosave.Cancel()
	a.state.Reset()
	a.sessions.SignOut()
	return nil
}
