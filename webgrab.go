// Package webgrab provides a website mirroring crawler.
// It crawls a site from a seed URL, fetches each page through one of several
// interchangeable fetch strategies, classifies and saves discovered resources
// (HTML, images, videos, documents), and records failures for later retry.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., rod/, goquery/, chromedp/).
package webgrab
