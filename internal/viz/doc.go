// Package viz renders trajectories, minimisation progress and check reports
// in the terminal.
//
// Plots are drawn with asciigraph, panels are styled with lipgloss, and
// [ProgressModel] is a Bubble Tea model that follows an assimilation stream
// while it runs.
//
// # Key Bindings
//
//	Q / Esc - Quit the progress view
package viz
