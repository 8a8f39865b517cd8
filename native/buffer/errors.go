package buffer

import "errors"

var (
	// Encoding errors.
	ErrBalanceOverflow = errors.New("buffer: balance exceeds packed field width")

	// State errors.
	ErrBufferNotInitialized     = errors.New("buffer: not initialized")
	ErrBufferAlreadyInitialized = errors.New("buffer: already initialized")
	ErrBelowMinimumSupply       = errors.New("buffer: initial deposit below minimum supply")
	ErrInsufficientShares       = errors.New("buffer: insufficient shares")
	ErrZeroShares               = errors.New("buffer: zero share operation")
	ErrBufferPaused             = errors.New("buffer: paused")

	// Settlement errors.
	ErrBalanceNotSettled = errors.New("buffer: adapter balance not settled")

	// Asset-identity errors.
	ErrWrongUnderlyingToken = errors.New("buffer: asset does not match registered pair")

	ErrDeadlineExpired   = errors.New("buffer: deadline expired")
	ErrAmountOutBelowMin = errors.New("buffer: amount out below minimum")
	ErrAmountInAboveMax  = errors.New("buffer: amount in above maximum")
)

var (
	errNilState            = errors.New("buffer engine: state not configured")
	errNilOracle           = errors.New("buffer engine: rate oracle not configured")
	errNilAdapter          = errors.New("buffer engine: conversion adapter not configured")
	errInvalidAmount       = errors.New("buffer engine: amount must be positive")
	errInvalidRate         = errors.New("buffer engine: rate must be positive")
	errLimitRequired       = errors.New("buffer engine: exact-out conversion requires a positive limit")
	errInsufficientBalance = errors.New("buffer engine: insufficient token balance")
)
