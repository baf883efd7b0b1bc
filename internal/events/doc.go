// Package events carries study events from the study service to interested
// observers without coupling the two.
//
// The primary components are:
// - StudyEvent: something that happened during a study turn
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
