// Package utils provides common utility functions for the vectorgate project.
package utils
