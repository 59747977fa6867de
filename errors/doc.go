// Package errors provides the portable error kinds shared by every osal package.
//
// Raw operating-system errors are translated into an AppError carrying a
// machine-readable ErrorCode. The original OS error stays reachable through
// Unwrap, so errors.Is(err, syscall.ENOENT) keeps working on mapped errors.
package errors
