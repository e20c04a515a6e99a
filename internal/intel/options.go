package intel

// Options controls one processing run. Force reprocesses articles the hash
// tracker already covers. DryRun computes the full summary while writing
// nothing: no tracker save, no enriched cache, no output files.
type Options struct {
	DryRun bool
	Force  bool
}
