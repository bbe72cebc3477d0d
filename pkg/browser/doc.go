// Package browser owns a single automated browser session and exposes the
// action API the HTTP layer serves: navigation, interaction, content
// extraction, screenshots, and cookie management.
//
// # Architecture
//
// The package is built around three pieces:
//
//  1. Session: one browser process, one isolation context, one page,
//     with all actions serialized behind a mutex
//  2. Engine/Browser/Context/Page: narrow driver interfaces over the
//     automation runtime, so tests run against stubs
//  3. NewPlaywrightEngine: the production driver, backed by Playwright
//
// # Session Lifecycle
//
//	UNINITIALIZED --Start()--> READY --Close()--> UNINITIALIZED
//
// Every action requires READY and fails with a structured not-initialized
// error otherwise. Action failures never poison the session: there is no
// FAILED state, and the next action on the same session is attempted
// fresh. Close is idempotent.
//
// # Failure Policy
//
// Web navigation is inherently flaky; slow trackers and third-party
// scripts routinely prevent a clean network-idle signal. Navigate
// therefore degrades through an ordered ladder (DOM load + network idle,
// then soft success with a warning, then a one-shot reload recovery)
// and only reports an error when no usable content could be produced.
// All other actions convert engine failures into *Error values carrying
// the original message; nothing panics and nothing is fatal to the
// process.
//
// # Example Usage
//
//	engine, err := browser.NewPlaywrightEngine()
//	if err != nil {
//	    return err
//	}
//	defer engine.Stop()
//
//	session := browser.NewSession(engine, browser.Options{Headless: true})
//	if err := session.Start(); err != nil {
//	    return err
//	}
//	defer session.Close()
//
//	result, err := session.Navigate("example.com", 30000)
package browser
