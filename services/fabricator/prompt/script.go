// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prompt

// NavigationScript is the click-interception snippet every generated page
// must carry before its closing </body> tag. It rewrites same-origin link
// clicks into navigate messages posted to the embedding host, so the
// sandboxed surface never performs a real page load.
//
// The text is embedded verbatim in both prompts; changing it changes what
// the model is instructed to emit, so treat it as part of the wire contract
// with the surface.
const NavigationScript = `<script>
document.addEventListener('click', function(e) {
  const link = e.target.closest('a');
  if (link && link.href) {
    const url = new URL(link.href);
    if (url.pathname !== window.location.pathname) {
      e.preventDefault();
      window.parent.postMessage({
        type: 'navigate',
        path: url.pathname
      }, '*');
    }
  }
});
</script>`
