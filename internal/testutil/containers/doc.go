// Package containers manages Docker containers for integration tests using
// testcontainers-go: MySQL for the relational store, Eclipse Mosquitto for
// alert publication, and ntfy for push delivery.
//
// Tests using this package carry the "integration" build tag and typically
// start containers in TestMain:
//
//	var broker *containers.MosquittoContainer
//
//	func TestMain(m *testing.M) {
//	    var err error
//	    broker, err = containers.NewMosquittoContainer(context.Background(), nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    code := m.Run()
//	    _ = broker.Terminate(context.Background())
//	    os.Exit(code)
//	}
package containers
