// Package validator provides a small validation abstraction for request
// structs.
//
// Business code depends on the Validator interface. The go-playground v10
// implementation lives here together with the custom rules the service uses.
package validator
