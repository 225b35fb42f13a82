// Package tui is the full-screen download wizard.
//
// Model drives a wizard.Controller whose steps are built by NewStep. Each
// step draws its own screen, handles its own keys and asks to move on by
// emitting NextMsg or PrevMsg; the controller decides whether the move is
// allowed. Esc always means back. Ctrl+C saves the session so that
// `esimctl download --resume` continues where it stopped.
//
//	m, err := tui.NewModel(ctx, tui.Options{Engine: engine, Store: store})
//	if err != nil {
//	    return err
//	}
//	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
//	    return err
//	}
//
// Steps never call each other. The progress step starts the download at
// most once per attempt and then only watches the task, so a resumed
// session re-attaches instead of downloading twice.
package tui
