// Package client assembles a [forensic.Gateway] from provider configuration.
//
// The audit backend and the image backend are chosen independently:
//
//	gw, err := client.New(ctx, client.Config{
//	    APIKeys: client.APIKeys{
//	        Google: os.Getenv("GOOGLE_API_KEY"),
//	    },
//	    AuditProvider: forensic.ProviderGoogle,
//	    ImageProvider: forensic.ProviderGoogle,
//	})
//
//	res, err := gw.Auditor.Audit(ctx, forensic.SampleTelemetry)
//
// # Events
//
// Every provider call can be observed through an optional channel. Events
// are sent non-blocking; when the channel is full they are dropped.
//
//	events := make(chan client.Event, 64)
//	gw, _ := client.New(ctx, client.Config{..., Events: events})
//
//	go func() {
//	    for e := range events {
//	        fmt.Printf("[%s] %s took %v\n", e.Type, e.Operation, e.Duration)
//	    }
//	}()
package client
