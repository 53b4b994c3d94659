// Package pistonpress prints HTML templates to PDF using headless Chrome.
//
// # Quick Start
//
// Launch a press over a templates directory and an assets directory, print,
// and close when done:
//
//	q, err := pistonpress.Launch(ctx, pistonpress.Directories{
//	    Templates: "./templates",
//	    Assets:    "./assets",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer q.Close()
//
//	pdf, err := q.Print(ctx, pistonpress.Request{
//	    TemplateName: "invoice",
//	    Values:       pistonpress.Values{"customer": "ACME"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("invoice.pdf", pdf, 0644)
//
// # Printing Pipeline
//
// Each job goes through these stages:
//
//  1. The request is turned into a render URL on a loopback HTTP endpoint
//  2. A fresh browser page navigates to that URL
//  3. The endpoint executes the html/template with the job's values
//  4. The page waits for its completion signal, racing it against failures
//  5. The page is printed to PDF and closed
//
// Templates are html/template files named <templateName>.html in the templates
// directory. They reference static files under /assets/.
//
// # Completion Signals
//
// By default a page is complete once the network has been idle (networkidle0).
// Pages that finish rendering with scripts can call window.ready() instead:
//
//	pdf, err := q.Print(ctx, pistonpress.Request{
//	    TemplateName: "chart",
//	    Options:      &pistonpress.PrintOptions{WaitSignal: pistonpress.WaitReady},
//	})
//
// # Failures
//
// Failures are returned as *Error values carrying a Kind. Use errors.Is with the
// sentinels or KindOf to branch on them:
//
//	switch pistonpress.KindOf(err) {
//	case pistonpress.KindTemplateNotFound:
//	    // unknown template
//	case pistonpress.KindAssetNotFound:
//	    // a stylesheet or image returned 404
//	}
//
// A missing asset fails the job unless PrintOptions.AllowFailedSubResources is set.
// An uncaught exception in the page fails the job with KindPageScriptError.
//
// # Concurrency
//
// Launch returns a Queue. Jobs are dispatched in submission order and at most
// WithConcurrency of them print at once on the shared browser. Close stops
// accepting work, waits for queued and running jobs, then shuts down the
// browser and the endpoint.
//
// # Browser Requirements
//
// Printing requires Chrome/Chromium. The go-rod library automatically
// downloads a managed Chromium instance on first run (~/.cache/rod/browser/).
//
// For containers and CI environments, use WithNoSandbox or set ROD_NO_SANDBOX=1.
// Use WithBrowserBin or ROD_BROWSER_BIN to specify a custom Chrome binary.
package pistonpress
