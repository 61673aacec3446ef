// Package kube implements the cluster client used by testframe sessions on
// top of client-go. A Client talks to one kubeconfig context at a time and can
// be rebound to another context through SwitchContext.
package kube
