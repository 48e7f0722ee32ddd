// Package testutil provides testing utilities for the server module.
//
// It includes a test server component backed by httptest.Server for tests
// that need real HTTP round trips through the full middleware stack.
//
// # Quick Start
//
//	srv := testutil.NewComponent()
//	_ = srv.Start(context.Background())
//	defer srv.Stop(context.Background())
//
//	srv.GinEngine().GET("/hello", func(c *gin.Context) {
//	    c.String(200, "world")
//	})
//
//	resp, _ := http.Get(srv.BaseURL() + "/hello")
package testutil
