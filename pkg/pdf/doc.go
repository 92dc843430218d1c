// Package pdf turns rendered HTML into validated PDF files.
//
// A Synthesizer delegates page layout to an Engine (ChromeEngine drives headless
// Chromium through go-rod) and checks every produced document with pdfcpu before
// it becomes visible at the requested path:
//
//	engine := pdf.NewChromeEngine(pdf.WithControlURL(os.Getenv("CHROME_URL")))
//	defer engine.Close()
//
//	synth := pdf.New(engine, pdf.WithLogger(log))
//	path, err := synth.Synthesize(ctx, html, "/tmp/run/Memo.pdf", pdf.DefaultPageSettings())
//
// On any failure no file is left at the output path.
package pdf
