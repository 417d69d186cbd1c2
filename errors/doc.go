// Package errors provides the error taxonomy shared by the fetch pipeline.
// Every failure crossing a layer boundary is an *AppError tagged with an
// ErrorCode, so retry and breaker decisions are structural matches rather
// than message inspection.
package errors
