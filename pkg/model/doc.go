// Package model defines the data model and render model of a bubble flow
// diagram.
//
// This package is the single source of truth for the shared types that flow
// through the pipeline:
//
//   - [Entity]: a positioned bubble on the circle (or the synthetic centre)
//   - [FlowRecord]: a directed, valued relationship between two entities
//   - [FlowSegment]: a renderable arc derived from a flow record
//   - [RenderModel]: the complete, immutable output handed to a drawing layer
//   - [Params]: the interaction state a render model was computed from
//
// # Closed Variants
//
// Flow types, segment directions, markers and themes are typed string
// constants. Code that branches on them uses exhaustive switches:
//
//	model.FlowIn, model.FlowOut, model.FlowNet, model.FlowBoth
//	model.SegmentSingle, model.SegmentOutgoing, model.SegmentIncoming
//	model.MarkerStart, model.MarkerEnd, model.MarkerBoth, model.MarkerNone
//
// # Identifiers
//
// Entities are keyed by [EntityID]. The synthetic centre entity always uses
// [CentreID]. Flow records are keyed by [PairKey], which is symmetric in its
// arguments, so (1,2) and (2,1) share the id "1,2".
//
// # Serialization
//
// Render models serialize to a stable JSON format:
//
//	data, _ := model.MarshalRenderModel(m)
//	m2, _ := model.UnmarshalRenderModel(data)
package model
