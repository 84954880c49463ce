// Package manifest loads component manifests and translates them into the
// immutable declaration model the orchestrator consumes.
//
// Manifests are HCL files. Each `component` block names one component and
// lists the capabilities it exposes:
//
//	component "logger" {
//	  url = "local:///logger"
//
//	  expose directory "/data/logs" {
//	    from   = "/out/logs"
//	    rights = ["read"]
//	  }
//
//	  expose protocol "/svc/logsink" {
//	    from = "/svc/logsink"
//	  }
//	}
//
// Expose blocks are kept in declaration order; that order drives the order
// in which capability-readiness events are produced and dispatched.
package manifest
