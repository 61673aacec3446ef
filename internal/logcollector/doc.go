// Package logcollector writes diagnostics of a Kubernetes cluster to disk:
// container logs, events and YAML dumps of selected resource kinds. Output for
// one collection run lands under {root}/{suffix}/.
//
// Layout:
//
//	{root}/{suffix}/{namespace}/pods/{pod}-{container}.log
//	{root}/{suffix}/{namespace}/pods/{pod}-{container}-previous.log
//	{root}/{suffix}/{namespace}/events.yaml
//	{root}/{suffix}/{namespace}/{kind}/{name}.yaml
//	{root}/{suffix}/cluster-wide-resources/{kind}/{name}.yaml
package logcollector
