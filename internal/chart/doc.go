// Package chart turns filtered views into chart specifications and renders
// them to PNG. The spec step is pure data assembly (series, goal lines,
// least-squares trend overlays) so transports can serve it as JSON; the
// renderer draws a spec with gonum/plot and depends only on its inputs.
package chart
