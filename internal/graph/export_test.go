package graph

var BuildClaimQuery = buildClaimQuery
